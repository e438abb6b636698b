package ptr

func Of[T any](v T) *T {
	return &v
}

func ValueOr[T any](p *T, def T) T {
	if nil == p {
		return def
	}
	return *p
}
