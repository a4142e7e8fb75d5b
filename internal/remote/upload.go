package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentChunks bounds how many chunk POSTs are in flight at once.
// Chunks are read from the source sequentially (io.Reader isn't safe for
// concurrent reads), and with a limit of one each chunk's POST completes
// before the next one starts, so chunks reach the server in index order.
const maxConcurrentChunks = 1

// mimeSniffLen is how many leading bytes are sampled for content-based MIME
// detection before upload, mirroring the original implementation's
// mime_guess-on-upload behavior (SPEC_FULL §2 DOMAIN STACK).
const mimeSniffLen = 512

// quoteEscaper matches the stdlib mime/multipart package's own unexported
// escaping for form-data header parameter values.
var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// detectMime samples the first mimeSniffLen bytes of r for content-based
// type detection and returns the detected MIME string alongside a reader
// that replays the sampled bytes ahead of the remainder of r.
func detectMime(r io.Reader) (string, io.Reader, error) {
	buf := make([]byte, mimeSniffLen)

	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", nil, fmt.Errorf("remote: sniffing content type: %w", err)
	}

	buf = buf[:n]

	return mimetype.Detect(buf).String(), io.MultiReader(bytes.NewReader(buf), r), nil
}

// createFilePart adds a file part to mw with an explicit Content-Type,
// since multipart.Writer.CreateFormFile always hardcodes
// application/octet-stream.
func createFilePart(mw *multipart.Writer, fieldName, filename, mimeType string) (io.Writer, error) {
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(
		`form-data; name="%s"; filename="%s"`, quoteEscaper.Replace(fieldName), quoteEscaper.Replace(filename)))
	h.Set("Content-Type", mimeType)

	return mw.CreatePart(h)
}

// simpleUploadResponse is the JSON shape of POST /upload (spec §6).
type simpleUploadResponse struct {
	File UploadedFile `json:"file"`
}

// Upload sends the file's bytes to the server, switching to the chunked
// protocol when size exceeds ChunkedUploadThreshold (spec §4.2 "Upload
// policy"). id and folderID are optional: id re-uploads over an existing
// file, folderID places a new file under a parent.
func (c *Client) Upload(ctx context.Context, r io.Reader, size int64, id, folderID, name string) (UploadedFile, error) {
	if size > MaxUploadSize {
		return UploadedFile{}, fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrOversize, name, size, MaxUploadSize)
	}

	mimeType, sniffed, err := detectMime(r)
	if err != nil {
		return UploadedFile{}, err
	}

	if size > ChunkedUploadThreshold {
		return c.chunkedUpload(ctx, sniffed, size, id, folderID, name, mimeType)
	}

	return c.simpleUpload(ctx, sniffed, id, folderID, name, mimeType)
}

// simpleUpload sends a multipart POST /upload request (spec §6).
func (c *Client) simpleUpload(ctx context.Context, r io.Reader, id, folderID, name, mimeType string) (UploadedFile, error) {
	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("originalName", name); err != nil {
		return UploadedFile{}, fmt.Errorf("remote: writing originalName field: %w", err)
	}

	if id != "" {
		if err := mw.WriteField("fileId", id); err != nil {
			return UploadedFile{}, fmt.Errorf("remote: writing fileId field: %w", err)
		}
	}

	if folderID != "" {
		if err := mw.WriteField("folderId", folderID); err != nil {
			return UploadedFile{}, fmt.Errorf("remote: writing folderId field: %w", err)
		}
	}

	part, err := createFilePart(mw, "file", name, mimeType)
	if err != nil {
		return UploadedFile{}, fmt.Errorf("remote: creating file form part: %w", err)
	}

	if _, err := io.Copy(part, r); err != nil {
		return UploadedFile{}, fmt.Errorf("remote: copying file content into form: %w", err)
	}

	if err := mw.Close(); err != nil {
		return UploadedFile{}, fmt.Errorf("remote: closing multipart writer: %w", err)
	}

	resp, err := c.do(ctx, "POST", "/upload", &buf, mw.FormDataContentType())
	if err != nil {
		return UploadedFile{}, err
	}
	defer resp.Body.Close()

	var decoded simpleUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return UploadedFile{}, fmt.Errorf("%w: decoding upload response: %v", ErrDecodeShape, err)
	}

	return decoded.File, nil
}

type chunkStartParams struct {
	Filename     string `json:"filename"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
	TotalChunks  int    `json:"totalChunks"`
	Mime         string `json:"mime"`
	FileID       string `json:"fileId,omitempty"`
}

type chunkStartResponse struct {
	UploadID string `json:"uploadId"`
}

type chunkCompleteParams struct {
	UploadID string `json:"uploadId"`
	FolderID string `json:"folderId,omitempty"`
}

type chunkCompleteResponse struct {
	File UploadedFile `json:"file"`
}

// chunkedUpload performs the three-step chunked handshake: start, a
// 1 MiB-sliced sequence of chunk calls transmitted in order starting at
// index zero, then complete (spec §4.2).
func (c *Client) chunkedUpload(ctx context.Context, r io.Reader, size int64, id, folderID, name, mimeType string) (UploadedFile, error) {
	totalChunks := int((size + ChunkSize - 1) / ChunkSize)
	if totalChunks == 0 {
		totalChunks = 1
	}

	startPayload, err := json.Marshal(chunkStartParams{
		Filename: name, OriginalName: name, Size: size,
		TotalChunks: totalChunks, Mime: mimeType, FileID: id,
	})
	if err != nil {
		return UploadedFile{}, fmt.Errorf("remote: encoding chunk start request: %w", err)
	}

	startResp, err := c.do(ctx, "POST", "/upload/chunk/start", bytes.NewReader(startPayload), "application/json")
	if err != nil {
		return UploadedFile{}, err
	}

	var started chunkStartResponse
	decErr := json.NewDecoder(startResp.Body).Decode(&started)
	startResp.Body.Close()

	if decErr != nil {
		return UploadedFile{}, fmt.Errorf("%w: decoding chunk start response: %v", ErrDecodeShape, decErr)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(maxConcurrentChunks)

	for index := 0; ; index++ {
		buf := make([]byte, ChunkSize)

		n, readErr := io.ReadFull(r, buf)
		if n > 0 {
			chunk := buf[:n]
			idx := index

			group.Go(func() error {
				return c.sendChunk(groupCtx, started.UploadID, idx, chunk)
			})
		}

		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}

		if readErr != nil {
			group.Wait()

			return UploadedFile{}, fmt.Errorf("remote: reading chunk %d: %w", index, readErr)
		}
	}

	if err := group.Wait(); err != nil {
		return UploadedFile{}, err
	}

	completePayload, err := json.Marshal(chunkCompleteParams{UploadID: started.UploadID, FolderID: folderID})
	if err != nil {
		return UploadedFile{}, fmt.Errorf("remote: encoding chunk complete request: %w", err)
	}

	completeResp, err := c.do(ctx, "POST", "/upload/chunk/complete", bytes.NewReader(completePayload), "application/json")
	if err != nil {
		return UploadedFile{}, err
	}
	defer completeResp.Body.Close()

	var completed chunkCompleteResponse
	if err := json.NewDecoder(completeResp.Body).Decode(&completed); err != nil {
		return UploadedFile{}, fmt.Errorf("%w: decoding chunk complete response: %v", ErrDecodeShape, err)
	}

	return completed.File, nil
}

// sendChunk POSTs a single multipart chunk (spec §6: "POST /upload/chunk
// (multipart: uploadId, chunkIndex, file)").
func (c *Client) sendChunk(ctx context.Context, uploadID string, index int, data []byte) error {
	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("uploadId", uploadID); err != nil {
		return fmt.Errorf("remote: writing uploadId field: %w", err)
	}

	if err := mw.WriteField("chunkIndex", fmt.Sprintf("%d", index)); err != nil {
		return fmt.Errorf("remote: writing chunkIndex field: %w", err)
	}

	part, err := mw.CreateFormFile("file", fmt.Sprintf("chunk-%d", index))
	if err != nil {
		return fmt.Errorf("remote: creating chunk form part: %w", err)
	}

	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("remote: writing chunk %d bytes: %w", index, err)
	}

	if err := mw.Close(); err != nil {
		return fmt.Errorf("remote: closing chunk multipart writer: %w", err)
	}

	resp, err := c.do(ctx, "POST", "/upload/chunk", &buf, mw.FormDataContentType())
	if err != nil {
		return err
	}

	resp.Body.Close()

	return nil
}
