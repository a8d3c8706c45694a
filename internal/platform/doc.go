// Package platform holds the table of supported content platforms, URL based
// platform detection, and the OS glue for download folders.
package platform
