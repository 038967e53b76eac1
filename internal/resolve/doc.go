// Package resolve locates the audio file a cue sheet refers to, even
// when the declared filename or extension does not match what is on
// disk. Name matching is tried first; magic-byte sniffing breaks ties
// and always wins over the extension when deciding the actual format.
package resolve
