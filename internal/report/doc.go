// Package report renders stored measurements for people: a tab-delimited
// table for spreadsheets and a PNG plot of energy shift against field.
package report
