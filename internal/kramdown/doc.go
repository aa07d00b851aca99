// Package kramdown converts SiYuan kramdown exports into portable Markdown
// and extracts the block reference tokens they carry.
package kramdown
