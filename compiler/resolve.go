package compiler

import (
	"github.com/lightplayer/lightplayer/backend"
	"github.com/lightplayer/lightplayer/builtin"
)

// symbolKey returns the name a builtin call actually resolves to once
// the Q32 pass has run (q32/conversion.go's rewriteCall renames a
// call's ExternRef to entry.Q32Name whenever one is registered, and
// leaves it alone otherwise) — the same string backend/select.go's
// calleeSymbol carries into the image's relocation table.
func symbolKey(e builtin.Entry) string {
	if e.Q32Name != "" {
		return e.Q32Name
	}
	return e.Name
}

// guestResolver builds a backend.GuestResolver over reg, consulting
// guestAddrs (keyed by symbolKey) for where the caller has already
// loaded the builtin math/noise library spec §1 treats as an external
// collaborator. A registry entry with no matching address is left
// unresolved, same as a name the registry does not know about at all;
// both end up trap-stubbed by backend.NewEmulatorModule / emu/elf.Load.
// reg itself supplies no addresses — it lets an unresolved lookup tell
// "a cataloged builtin the caller simply forgot to load" from "a name
// that was never a builtin to begin with," which Compile logs at debug
// level to help a caller wiring GuestBuiltins spot the gap.
func guestResolver(reg *builtin.Registry, guestAddrs map[string]uint32) backend.GuestResolver {
	if reg == nil && len(guestAddrs) == 0 {
		return nil
	}
	return func(name string) (uint32, bool) {
		if addr, ok := guestAddrs[name]; ok {
			return addr, true
		}
		if reg != nil && reg.Has(name) {
			Logger().Sugar().Debugf("builtin %q is cataloged but has no guest address in Config.GuestBuiltins", name)
		}
		return 0, false
	}
}

// hostResolver builds a backend.HostResolver the same way, for the
// HostJIT flavor running on an actual RISC-V host. Builtins registered
// with builtin.ResolveNative have no sound way to hand a Go func value
// to RISC-V machine code as a callable address (no host-native
// trampoline generator exists in this core, spec §1's stated scope);
// those, like any name absent from hostAddrs, are left unresolved.
func hostResolver(hostAddrs map[string]uint64) backend.HostResolver {
	if len(hostAddrs) == 0 {
		return nil
	}
	return func(name string) (uint64, bool) {
		addr, ok := hostAddrs[name]
		return addr, ok
	}
}
