package context

// Environment gives read access to the process environment. CLI flags that
// weren't passed on the command line are looked up in it.
type Environment interface {
	Lookup(key string) (string, bool)
}
