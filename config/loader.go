package config

// Loader reads configuration into a target struct.
type Loader interface {
	// Load fills target from the underlying source.
	Load(target any) error

	// Watch invokes callback whenever the source changes.
	Watch(callback func()) error
}
