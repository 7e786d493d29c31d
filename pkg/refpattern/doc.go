// Package refpattern classifies, validates and matches Git ref patterns used
// as access section names.
//
// Four kinds of pattern are recognised:
//
//	refs/heads/master          exact ref name
//	refs/heads/*               prefix, matches every ref under refs/heads/
//	^refs/heads/rel-[0-9]+     regular expression, full match
//	refs/heads/${username}/*   parameterized, expanded per user identity
//
// A parameterized pattern may itself be a regular expression
// (^refs/sb/${username}/.*). Regular expressions are compiled with
// regexp/syntax, and the compiled program doubles as the automaton used to
// derive shortest examples, finiteness and transition counts for the
// specificity ordering.
package refpattern
