package core

import "sync"

// System internal event codes. Application should use codes beyond 255.
type EventCode uint16

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT EventCode = 0x01
	// Keyboard key pressed.
	EVENT_CODE_KEY_PRESSED EventCode = 0x02
	// Keyboard key released.
	EVENT_CODE_KEY_RELEASED EventCode = 0x03
	// Mouse button pressed.
	EVENT_CODE_BUTTON_PRESSED EventCode = 0x04
	// Mouse button released.
	EVENT_CODE_BUTTON_RELEASED EventCode = 0x05
	// Mouse moved.
	EVENT_CODE_MOUSE_MOVED EventCode = 0x06
	// Mouse wheel scrolled.
	EVENT_CODE_MOUSE_WHEEL EventCode = 0x07
	// Resized/resolution changed from the OS.
	EVENT_CODE_RESIZED EventCode = 0x08
	// Live-tunable configuration changed on disk.
	EVENT_CODE_CONFIG_CHANGED EventCode = 0x09

	MAX_EVENT_CODE EventCode = 0xFF
)

type KeyEvent struct {
	KeyCode KeyCode
}

type MouseEvent struct {
	Button Button
	PosX   uint16
	PosY   uint16
	Scroll int8
}

type SystemEvent struct {
	WindowWidth  uint32
	WindowHeight uint32
}

type EventContext struct {
	Type EventCode
	Data interface{}
}

type FnOnEvent func(context EventContext)

type eventSystemState struct {
	registered map[EventCode][]FnOnEvent
}

var onceEvent sync.Once
var eventInitialized bool = false
var eventState *eventSystemState = nil

func EventSystemInitialize() bool {
	onceEvent.Do(func() {
		eventState = &eventSystemState{
			registered: make(map[EventCode][]FnOnEvent),
		}
	})
	eventInitialized = true
	return true
}

func EventSystemShutdown() error {
	if eventState != nil {
		eventState.registered = make(map[EventCode][]FnOnEvent)
	}
	eventInitialized = false
	return nil
}

// EventRegister adds a listener for the given code. Listeners are invoked in
// registration order, synchronously, on the goroutine that fires the event.
func EventRegister(code EventCode, onEvent FnOnEvent) bool {
	if !eventInitialized {
		return false
	}
	eventState.registered[code] = append(eventState.registered[code], onEvent)
	return true
}

// EventFire dispatches the context to every listener of its code.
func EventFire(context EventContext) bool {
	if !eventInitialized {
		return false
	}
	listeners := eventState.registered[context.Type]
	if len(listeners) == 0 {
		return false
	}
	for _, fn := range listeners {
		fn(context)
	}
	return true
}
