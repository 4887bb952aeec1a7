// Package extract turns uploaded documents into plain text.
//
// PDF, Word (.docx) and plain-text files are supported. Text files are
// decoded by trying UTF-8, UTF-16 (with a byte-order mark), ISO-8859-1 and
// Windows-1252 in that order.
package extract
