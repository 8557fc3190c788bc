package channel

// DefaultPrefix is the channel namespace used when none is configured.
const DefaultPrefix = "dev.flutter.pigeon"

// Name returns the channel name for a method of an interface.
func Name(prefix, iface, method string) string {
	return prefix + "." + iface + "." + method
}
