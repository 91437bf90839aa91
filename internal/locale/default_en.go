//go:build !lang_fr

package locale

// Default is the table compiled into this binary.
var Default = English
