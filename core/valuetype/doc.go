// Package valuetype provides the value-type adapters the collection engine uses
// to copy, compare and cache elements.
//
// Lookup maps the names accepted in configuration ("scalar", "int", "string",
// "json") to an adapter and, where one exists, its natural comparator.
package valuetype
