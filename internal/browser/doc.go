// Package browser implements the session's Driver contract on top of
// Playwright: a headless Chromium page plus the command primitives the
// queue delegates (:url, :click, :move-mouse, :type, :keypress,
// :scroll-wheel-*, :wait, :back, :forward, :reload).
//
// The driver tracks the virtual mouse position itself so that :click
// with no arguments clicks wherever the last :move-mouse left off,
// matching how the command arrays are authored upstream.
package browser
