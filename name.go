package rgraph

// Name is a stable 32-bit hash of a user-supplied string. Equality on Name
// is the only identity predicate used between components, images and
// passes; nothing in this package ever compares strings directly once a
// Name has been interned.
type Name uint32

// Intern hashes s into a Name. The hash is FNV-1a, which is cheap,
// avalanches well enough for the map-key sizes this package deals with,
// and is stable across a process run (it is not seeded).
func Intern(s string) Name {
	const offset32 = 2166136261
	const prime32 = 16777619

	h := uint32(offset32)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime32
	}
	return Name(h)
}

// Combine folds extra into h, in the manner of boost::hash_combine. It is
// used to build the Storage invalidation hash out of a running usage/format
// accumulator and a Name.
func Combine(h uint32, extra uint32) uint32 {
	// same constant boost uses for 32-bit combine (fractional part of the
	// golden ratio, scaled to 2^32).
	const magic = 0x9e3779b9
	h ^= extra + magic + (h << 6) + (h >> 2)
	return h
}
