// Package modload loads a script file (CommonJS, ECMAScript module or
// TypeScript source) at runtime inside an embedded JavaScript runtime and
// returns the value the module exports.
//
// The load strategy is selected by the path's trailing extension:
//
//	.mjs        dynamic import; the namespace's default member is returned
//	.cjs        synchronous require; module.exports is returned as-is
//	.ts, .tsx   synchronous require of the transpiled source under a scoped
//	            compiler project registration; exports.default is preferred
//	            when present, with a dynamic-import fallback if the module
//	            turns out to be in ECMAScript module format
//	.js, .jsx   synchronous require with the same dynamic-import fallback
//
// Any other extension fails fast with an UnsupportedExtensionError. Every
// load call runs in a fresh sandbox; nothing is cached between calls except
// the optional transpile cache.
package modload
