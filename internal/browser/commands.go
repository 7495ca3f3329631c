package browser

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Scroll distance in pixels per wheel notch.
const wheelNotch = 120

// Execute runs one command array and returns the resulting page state.
func (d *Driver) Execute(ctx context.Context, command []string) (map[string]interface{}, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	var err error
	switch command[0] {
	case ":url", ":navigate":
		err = d.navigate(command[1:])
	case ":click":
		err = d.click(playwright.MouseButtonLeft)
	case ":right-click":
		err = d.click(playwright.MouseButtonRight)
	case ":move-mouse":
		err = d.moveMouse(command[1:])
	case ":type":
		err = d.typeText(command[1:])
	case ":keypress":
		err = d.keypress(command[1:])
	case ":scroll-wheel-up":
		err = d.scroll(command[1:], -1)
	case ":scroll-wheel-down":
		err = d.scroll(command[1:], 1)
	case ":wait":
		err = d.wait(ctx, command[1:])
	case ":back":
		_, err = d.page.GoBack()
	case ":forward":
		_, err = d.page.GoForward()
	case ":reload":
		_, err = d.page.Reload()
	default:
		err = fmt.Errorf("unknown command %q", command[0])
	}
	if err != nil {
		return d.state(), err
	}
	return d.state(), nil
}

// state reports the page's observable state after a command.
func (d *Driver) state() map[string]interface{} {
	s := map[string]interface{}{"url": d.page.URL()}
	if title, err := d.page.Title(); err == nil {
		s["title"] = title
	}
	d.mu.Lock()
	s["mouse"] = map[string]interface{}{"x": d.mouseX, "y": d.mouseY}
	d.mu.Unlock()
	return s
}

func (d *Driver) navigate(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf(":url requires a target")
	}
	_, err := d.page.Goto(args[0], playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return fmt.Errorf("navigate to %s: %w", args[0], err)
	}
	return nil
}

// click presses at the tracked mouse position.
func (d *Driver) click(button *playwright.MouseButton) error {
	d.mu.Lock()
	x, y := d.mouseX, d.mouseY
	d.mu.Unlock()

	if err := d.page.Mouse().Click(x, y, playwright.MouseClickOptions{Button: button}); err != nil {
		return fmt.Errorf("click at (%v, %v): %w", x, y, err)
	}
	return nil
}

// moveMouse handles ":move-mouse :to X Y".
func (d *Driver) moveMouse(args []string) error {
	if len(args) != 3 || args[0] != ":to" {
		return fmt.Errorf(":move-mouse expects \":to X Y\"")
	}
	x, y, err := parseCoords(args[1], args[2])
	if err != nil {
		return err
	}
	if err := d.page.Mouse().Move(x, y); err != nil {
		return fmt.Errorf("move mouse to (%v, %v): %w", x, y, err)
	}
	d.mu.Lock()
	d.mouseX, d.mouseY = x, y
	d.mu.Unlock()
	return nil
}

func (d *Driver) typeText(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf(":type requires text")
	}
	if err := d.page.Keyboard().Type(args[0]); err != nil {
		return fmt.Errorf("type text: %w", err)
	}
	return nil
}

func (d *Driver) keypress(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf(":keypress requires a key")
	}
	if err := d.page.Keyboard().Press(args[0]); err != nil {
		return fmt.Errorf("press %s: %w", args[0], err)
	}
	return nil
}

// scroll turns the wheel the given number of notches; direction is -1
// for up, 1 for down.
func (d *Driver) scroll(args []string, direction int) error {
	notches := 1
	if len(args) >= 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("scroll count must be a positive integer, got %q", args[0])
		}
		notches = n
	}
	delta := float64(direction * notches * wheelNotch)
	if err := d.page.Mouse().Wheel(0, delta); err != nil {
		return fmt.Errorf("scroll wheel: %w", err)
	}
	return nil
}

func (d *Driver) wait(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf(":wait requires seconds")
	}
	secs, err := strconv.ParseFloat(args[0], 64)
	if err != nil || secs < 0 {
		return fmt.Errorf("wait seconds must be non-negative, got %q", args[0])
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(secs * float64(time.Second))):
		return nil
	}
}

func parseCoords(xs, ys string) (float64, float64, error) {
	x, err := strconv.ParseFloat(xs, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid x coordinate %q", xs)
	}
	y, err := strconv.ParseFloat(ys, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid y coordinate %q", ys)
	}
	return x, y, nil
}
