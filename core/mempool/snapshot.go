package mempool

// withSnapshot runs mutate against st between a snapshot and exactly one of
// revert or finalise. mutate must collect whatever it needs from the
// journal, such as touched keys, before returning.
func withSnapshot(st State, mutate func() error) error {
	id := st.Snapshot()
	if err := mutate(); err != nil {
		st.RevertToSnapshot(id)
		return err
	}
	st.Finalise()
	return nil
}
