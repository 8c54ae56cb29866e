// Package radio models a software-defined radio as a handler that owns a
// transport link and a set of configurable components.
//
// Components are tuners, down-converters (DDC), up-converters (DUC),
// transmitters, data ports and DDC groups. Each holds a ConfigStore whose
// keys are fixed by its Schema. A Schema also maps fields onto hardware
// commands; a command naming several fields is sent as one line, merging
// the changed values with the cached values of the fields left alone.
//
// Protocol differences between radio families (comma or space separated
// ASCII, JSON over HTTPS, units on the wire) live in a Dialect attached to
// the Model. NewHandler builds a Handler for a model name.
//
// Basic usage:
//
//	h, err := radio.NewHandler("NDR308", radio.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	if !h.Connect("tcp", "192.168.0.10", -1) {
//	    return fmt.Errorf("connect: %s", h.LastCommandError())
//	}
//	defer h.Disconnect()
//
//	if !h.SetTunerFrequency(1, 900e6) {
//	    log.Warn("tune failed", "error", h.LastCommandError())
//	}
//
// Every mutating call returns a bool and leaves its failure text in
// LastCommandError: "Timeout" for a receive timeout, the device's reason for
// an ERROR reply, or a validation message. A Handler is not safe for
// concurrent use.
package radio
