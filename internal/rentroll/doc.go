// Package rentroll ingests .xlsx rent rolls and turns them into unit rows,
// a portfolio summary, and income assumptions for the underwriting engine.
//
// Rent rolls arrive in whatever shape the property manager's software
// exports, so the parser hunts for the unit sheet by name and then by
// header content, maps columns from header text rather than fixed
// positions, and tolerates title rows, totals rows, and malformed unit
// rows (skipped and counted, never fatal unless nothing parses).
package rentroll
