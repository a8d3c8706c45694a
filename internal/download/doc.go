// Package download drives media downloads through an external Engine. It
// tracks each download as a task, translates engine progress into task
// updates, and records finished downloads in the download history.
package download
