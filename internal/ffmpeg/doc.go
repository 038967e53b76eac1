// Package ffmpeg wraps transcoder invocations. The transcoder is a
// black box: the client builds argument lists, runs the process, and
// reports exit status plus captured output. It never inspects or
// produces audio itself.
package ffmpeg
