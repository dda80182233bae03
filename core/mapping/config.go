package mapping

// Config holds the engine settings and the declared collection roles.
type Config struct {
	// Roles declares the mapped collections, separated by ";". Each entry is
	// "<Owner>.<property>=<classification>" followed by comma-separated options:
	// element=<type>, index=<type>, extra_lazy, one_to_many, orphan_delete.
	// Example: "Order.lines=bag,element=int,extra_lazy;Order.tags=sorted_set,element=string"
	Roles string `mapstructure:"roles" default:""`
	// ExtraLazy enables the delayed operation queue for every role.
	ExtraLazy bool `mapstructure:"extra_lazy" default:"false"`
	// CacheEnabled turns on the object storage cache region.
	CacheEnabled bool `mapstructure:"cache_enabled" default:"false"`
	// CachePrefix is the object name prefix of cache entries.
	CachePrefix string `mapstructure:"cache_prefix" default:"collections/"`
	// CacheTTLSeconds is how long cache entries are mirrored in memory. 0 disables the mirror.
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds" default:"60"`
}
