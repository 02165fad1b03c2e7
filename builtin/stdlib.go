package builtin

import "github.com/lightplayer/lightplayer/types"

// RegisterStandardLibrary populates r with the fixed builtin catalog
// spec §3.5 names: transcendentals, fixed-point helpers, noise, and
// color conversion. Every entry's Resolution is ResolveELFSymbol and no
// entry sets NativeFn; the HostJIT flavor instead takes host addresses
// for these symbols from compiler.Config.HostBuiltins, since the native
// implementations live outside this module (spec §1: "the
// implementation of transcendental/noise builtins" is an external
// collaborator).
func RegisterStandardLibrary(r *Registry) {
	f, v2, v3, v4 := types.Float, types.Vec2, types.Vec3, types.Vec4

	unary := func(name, symbol, q32 string) {
		r.Register(Entry{
			Name:       name,
			Sig:        Signature{Params: []*types.Type{f}, Result: f},
			Q32Name:    q32,
			Resolution: ResolveELFSymbol,
			Symbol:     symbol,
		})
	}

	unary("sin", "lp_sinf", "__lp_q32_sin")
	unary("cos", "lp_cosf", "__lp_q32_cos")
	unary("tan", "lp_tanf", "__lp_q32_tan")
	unary("asin", "lp_asinf", "__lp_q32_asin")
	unary("acos", "lp_acosf", "__lp_q32_acos")
	unary("atan", "lp_atanf", "__lp_q32_atan")
	unary("exp", "lp_expf", "__lp_q32_exp")
	unary("log", "lp_logf", "__lp_q32_log")
	unary("exp2", "lp_exp2f", "__lp_q32_exp2")
	unary("log2", "lp_log2f", "__lp_q32_log2")
	unary("sqrt", "lp_sqrtf", "__lp_q32_sqrt")
	unary("inversesqrt", "lp_rsqrtf", "__lp_q32_rsqrt")
	unary("floor", "lp_floorf", "__lp_q32_floor")
	unary("ceil", "lp_ceilf", "__lp_q32_ceil")
	unary("fract", "lp_fractf", "__lp_q32_fract")
	unary("sign", "lp_signf", "__lp_q32_sign")

	binary := func(name, symbol, q32 string) {
		r.Register(Entry{
			Name:       name,
			Sig:        Signature{Params: []*types.Type{f, f}, Result: f},
			Q32Name:    q32,
			Resolution: ResolveELFSymbol,
			Symbol:     symbol,
		})
	}
	binary("pow", "lp_powf", "__lp_q32_pow")
	binary("atan", "lp_atan2f", "__lp_q32_atan2") // two-argument atan overload
	binary("mod", "lp_modf", "__lp_q32_mod")
	binary("min", "lp_fminf", "__lp_q32_fmin")
	binary("max", "lp_fmaxf", "__lp_q32_fmax")
	binary("step", "lp_stepf", "__lp_q32_step")
	binary("distance", "lp_distancef", "__lp_q32_distance")
	binary("dot", "lp_dotf", "__lp_q32_dot")

	// mix is registered in its three-arg form, mix(a, b, t), only; there
	// is no two-arg mix entry.
	r.Register(Entry{
		Name:       "mix",
		Sig:        Signature{Params: []*types.Type{f, f, f}, Result: f},
		Q32Name:    "__lp_q32_mix",
		Resolution: ResolveELFSymbol,
		Symbol:     "lp_mixf",
	})
	r.Register(Entry{
		Name:       "clamp",
		Sig:        Signature{Params: []*types.Type{f, f, f}, Result: f},
		Q32Name:    "__lp_q32_clamp",
		Resolution: ResolveELFSymbol,
		Symbol:     "lp_clampf",
	})

	// length/normalize/cross get one Entry row each for vec2, vec3 and
	// vec4. Registry.Lookup matches by name and arity only and returns the
	// first row registered (the vec2 one), so sema checks every call's
	// arguments against the vec2 signature; a vec3 or vec4 argument is
	// reported as a type mismatch.
	for _, vt := range []*types.Type{v2, v3, v4} {
		r.Register(Entry{
			Name:       "length",
			Sig:        Signature{Params: []*types.Type{vt}, Result: f},
			Q32Name:    "__lp_q32_length",
			Resolution: ResolveELFSymbol,
			Symbol:     "lp_length",
		})
		r.Register(Entry{
			Name:       "normalize",
			Sig:        Signature{Params: []*types.Type{vt}, Result: vt},
			Q32Name:    "__lp_q32_normalize",
			Resolution: ResolveELFSymbol,
			Symbol:     "lp_normalize",
		})
		r.Register(Entry{
			Name:       "cross",
			Sig:        Signature{Params: []*types.Type{vt, vt}, Result: vt},
			Q32Name:    "__lp_q32_cross",
			Resolution: ResolveELFSymbol,
			Symbol:     "lp_cross",
		})
	}

	// Noise and color conversion: format-agnostic from the frontend's
	// point of view in name only, but these operate on fixed-point
	// inputs on-device, so they do carry a Q32Name (the device never
	// runs the float form).
	r.Register(Entry{
		Name:       "lpfx_snoise3",
		Sig:        Signature{Params: []*types.Type{v3}, Result: f},
		Q32Name:    "__lp_q32_snoise3",
		Resolution: ResolveELFSymbol,
		Symbol:     "lp_snoise3",
	})
	r.Register(Entry{
		Name:       "lpfx_hsv2rgb",
		Sig:        Signature{Params: []*types.Type{v3}, Result: v3},
		Q32Name:    "__lp_q32_hsv2rgb",
		Resolution: ResolveELFSymbol,
		Symbol:     "lp_hsv2rgb",
	})

	// Fixed-point arithmetic helpers the Q32 transform itself calls
	// into (spec §4.3); also registered here so the backend resolves
	// them through the same import-table path as user-visible builtins.
	r.Register(Entry{
		Name:       "__lp_q32_mul",
		Sig:        Signature{Params: []*types.Type{types.Int, types.Int}, Result: types.Int},
		Resolution: ResolveELFSymbol,
		Symbol:     "__lp_q32_mul",
	})
	r.Register(Entry{
		Name:       "__lp_q32_div",
		Sig:        Signature{Params: []*types.Type{types.Int, types.Int}, Result: types.Int},
		Resolution: ResolveELFSymbol,
		Symbol:     "__lp_q32_div",
	})
}
