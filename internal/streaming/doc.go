/*
Package streaming sends converted artifacts back to HTTP clients without
letting a slow or vanished client pin server resources.

A converted file only exists until its job's temporary paths are released, so
the download has to finish (or fail) promptly. [TimeoutWriter] wraps an
http.ResponseWriter with a per-chunk write timeout and stops as soon as the
request context is canceled:

	tw := streaming.NewTimeoutWriter(r.Context(), w, streaming.DefaultConfig())
	defer tw.Close()
	_, err := io.Copy(tw, src)

[ServeFile] does the whole download: it opens the file, sets Content-Type,
Content-Length and an attachment Content-Disposition, then streams it:

	n, err := streaming.ServeFile(ctx, w, streaming.File{
		Path:        artifact.Path,
		Name:        "converted_video.mp4",
		ContentType: "video/mp4",
	}, streaming.DefaultConfig())
	if errors.Is(err, streaming.ErrClientGone) {
		// client left, not a server error
	}

# Errors

  - [ErrWriteTimeout]: one chunk could not be written within WriteTimeout.
  - [ErrClientGone]: the request context was canceled.
  - [ErrStreamCanceled]: the writer was closed.
*/
package streaming
