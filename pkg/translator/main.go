// Package translator provides the VM-language lexer, parser and Hack code
// generator.
//
// Pipeline: VM source → Lex → Parse → CodeGenerator → Hack assembly text
package translator
