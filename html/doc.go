// Package html inspects the HTML bodies of outgoing messages. It doesn't
// generate or rewrite HTML.
package html
