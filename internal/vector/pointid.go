package vector

// PointID derives the vector-store point identifier from a document's
// natural key. The formula is a 32-bit rolling hash: acc = (acc << 5) - acc
// + code, with int32 wraparound at every step, absolute value at the end.
// It must stay bit-exact with the ids already written to the store, so do
// not change it without migrating existing points. Collisions are not
// detected; a colliding key overwrites an unrelated point.
func PointID(naturalKey string) uint32 {
	var acc int32
	for i := 0; i < len(naturalKey); i++ {
		acc = (acc << 5) - acc + int32(naturalKey[i])
	}
	// |MinInt32| does not fit in int32; widen before negating.
	wide := int64(acc)
	if wide < 0 {
		wide = -wide
	}
	return uint32(wide)
}
