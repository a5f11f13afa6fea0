package main

// Transport abstracts the rosbridge connection for testing.
type Transport interface {
	Subscribe(topic string) error
	UnsubscribeAll() error
	Advertise(topic, msgType string) error
	Unadvertise(topic string) error
	Publish(topic string, frame Frame) error
	Close() error
}

// DBusConnection interface abstracts D-Bus connection for testing
type DBusConnection interface {
	AddMatchSignal(options ...interface{}) error
	Signal(ch chan<- interface{})
	Close() error
}
