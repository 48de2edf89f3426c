// Package delivery hands a finished artifact to its destination before the
// job's temporary files are deleted.
//
// A [Sink] may stream the file to an HTTP client ([HTTPSink]), copy it into
// an output directory ([DirectorySink]) or upload it to S3-compatible storage
// ([S3Sink]). [Multi] combines several sinks.
package delivery
