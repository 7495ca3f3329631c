// Package session orchestrates one live browser automation run. A
// Session binds the browser driver, the stability detector, and the
// artifact store: each executed command runs the driver primitive,
// waits for the page to settle, then captures "after" evidence
// (screenshot and DOM snapshot) before the queue moves on.
package session
