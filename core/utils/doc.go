// Package utils provides value conversion helpers shared by the value types
// and the row store. Database drivers and decoded cache tokens hand back
// numbers in many shapes (int64 from sqlite, []byte from mysql, float64 from
// JSON); the helpers normalize them.
package utils
