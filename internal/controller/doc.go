// Package controller owns the recording session state machine and ties the
// recorder, buffer, and exporter together behind one facade.
package controller
