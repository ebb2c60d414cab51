// Package sendinput posts input events with the Win32 SendInput API. It is
// only functional on Windows.
package sendinput
