package remote

// Upload limits (spec §4.2, §6, §8): files above ChunkedUploadThreshold use
// the three-step chunked handshake; MaxUploadSize is a hard local
// rejection, no network call attempted.
const (
	ChunkedUploadThreshold = 50 * 1024 * 1024        // 50 MiB
	ChunkSize              = 1 * 1024 * 1024         // 1 MiB
	MaxUploadSize           = 5 * 1024 * 1024 * 1024 // 5 GiB
)
