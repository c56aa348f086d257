package renderer

// releaseStack collects destroy calls of objects created during a multi step build. If the build fails,
// release runs them in reverse creation order. A successful build calls forget and takes over ownership.
type releaseStack struct {
	fns []func()
}

func (r *releaseStack) push(fn func()) {
	r.fns = append(r.fns, fn)
}

func (r *releaseStack) release() {
	for i := len(r.fns) - 1; i >= 0; i-- {
		r.fns[i]()
	}
	r.fns = nil
}

func (r *releaseStack) forget() {
	r.fns = nil
}
