package imagery

// ProgressFunc receives (current, total, message) notifications as the
// grouper and blender move through discrete units of work. It is
// fire-and-forget and purely observational: implementations must not
// assume they influence control flow, and a nil ProgressFunc is always
// accepted.
type ProgressFunc func(current, total int, message string)

// NopProgress discards all notifications.
func NopProgress(int, int, string) {}

func notify(p ProgressFunc, current, total int, message string) {
	if p != nil {
		p(current, total, message)
	}
}
