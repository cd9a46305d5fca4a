package app

import (
	"context"
	"sync"
	"time"

	"github.com/eiannone/keyboard"
	"github.com/guidoenr/spherizer/internal/interaction"
	"go.uber.org/zap"
)

// cursorStep is how far one arrow press moves the keyboard pointer in NDC.
const cursorStep = 0.05

// keyCursor turns arrow keys into pointer samples.
type keyCursor struct {
	x, y float64
}

func (c *keyCursor) move(dx, dy float64) PointerInput {
	c.x = clampUnit(c.x + dx)
	c.y = clampUnit(c.y + dy)
	return PointerInput{Kind: interaction.EventMove, X: c.x, Y: c.y, At: time.Now()}
}

func (c *keyCursor) input(kind interaction.EventKind) PointerInput {
	return PointerInput{Kind: kind, X: c.x, Y: c.y, At: time.Now()}
}

// handleKey maps one key press onto the app. It reports false when the key quits.
func (a *App) handleKey(cursor *keyCursor, char rune, key keyboard.Key) bool {
	switch {
	case key == keyboard.KeyEsc || key == keyboard.KeyCtrlC, char == 'q' || char == 'Q':
		a.Quit()
		return false
	case key == keyboard.KeyArrowLeft:
		a.Send(cursor.move(-cursorStep, 0))
	case key == keyboard.KeyArrowRight:
		a.Send(cursor.move(cursorStep, 0))
	case key == keyboard.KeyArrowUp:
		a.Send(cursor.move(0, cursorStep))
	case key == keyboard.KeyArrowDown:
		a.Send(cursor.move(0, -cursorStep))
	case key == keyboard.KeySpace || char == ' ':
		a.Send(cursor.input(interaction.EventClick))
	case char == 'l' || char == 'L':
		a.Send(cursor.input(interaction.EventLeave))
	case char == 'r' || char == 'R':
		a.sendControl(control{kind: controlRandomize})
	case char == 'n' || char == 'N':
		a.sendControl(control{kind: controlNextNoise})
	case char == 'p' || char == 'P':
		a.sendControl(control{kind: controlNextPalette})
	case char == 'c' || char == 'C':
		a.sendControl(control{kind: controlNextColor})
	}
	return true
}

func (a *App) startInputListener(ctx context.Context) {
	if err := keyboard.Open(); err != nil {
		a.log.Warn("keyboard input disabled", zap.Error(err))
		return
	}

	closeOnce := &sync.Once{}
	go func() {
		<-ctx.Done()
		closeOnce.Do(func() {
			_ = keyboard.Close()
		})
	}()

	go func() {
		defer closeOnce.Do(func() {
			_ = keyboard.Close()
		})
		cursor := &keyCursor{}
		for {
			char, key, err := keyboard.GetKey()
			if err != nil {
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}
			if !a.handleKey(cursor, char, key) {
				return
			}
		}
	}()
}

func clampUnit(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
