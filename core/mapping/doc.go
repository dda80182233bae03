// Package mapping builds the collection registry from configuration.
//
// Roles are declared in a single string so they can come from an environment
// variable (ENGINE_ROLES) like every other setting:
//
//	Order.lines=bag,element=int,extra_lazy;Order.tags=sorted_set,element=string
//
// Each entry names the role, its classification and optional element and index
// value types (see core/valuetype.Lookup). Sorted sets use the natural order of
// their element type, so they need an ordered one such as int or string.
package mapping
