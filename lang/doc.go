// Package lang implements the bloc expression language and template renderer.
//
// A template is literal text interleaved with tags. Each tag is a bloc: an
// expression plus optional named properties and optional nested contents.
//
//	Hello, {{ user.name | fn.title }}!
//	{{# each(items) -> item, i }}
//	  {{ i + 1 }}. {{ item }}
//	{{/}}
//
// # Tags
//
//	{{ expr ; name = expr }}          bloc with properties
//	{{# expr -> a, b }} ... {{/}}     bloc with contents (local params)
//	{{# expr => a, b }} ... {{/}}     bloc with contents (global params)
//	{{:name = expr}}                  definition
//	{{:name -> a}} ... {{/}}          definition holding a template
//	{{! comment }}
//
// Definitions placed directly inside a section body become properties of
// that section's bloc. Definitions anywhere else are template locals.
//
// # Expressions
//
// The expression grammar is JSON-like: numbers, strings, true, false, null,
// undefined, identifiers, property and index access, calls, arrays and
// objects. Operators, lowest precedence first:
//
//	|  ||  &&  == !=  < > <= >=  + -  * / %  unary + - !
//
// The pipe x | f evaluates f before x, then calls f with x after resolving x
// through the helper convention.
//
// # Scopes
//
// Identifiers resolve against two chains of [Frame] values: locals, which a
// template captures when it is bound, and context, which is supplied when a
// bound template is invoked. Any name in the locals chain hides the same name
// in context. A name found in neither resolves to [Missing].
//
// # Helper convention
//
// A callable value found where a plain value is expected is called with the
// current context and bloc object, and its result is processed again the same
// way. Block helpers such as each and if are written against this convention:
// they read the bound contents from the bloc object they receive.
//
// # Builtins
//
// The root environment holds the block helpers if, unless, each and with,
// and the namespaces fn, sys, fs and pathlist. See [Builtins].
//
// # Deferred values
//
// Any value may be a [*Future]. Evaluation never blocks on one; it attaches a
// continuation instead. Rendered output keeps document order no matter which
// futures settle first.
package lang
