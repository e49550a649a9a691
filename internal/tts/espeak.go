package tts

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <string.h>
#include <espeak-ng/speak_lib.h>

static int
luna_espeak_init(const char *lang)
{
	if (espeak_Initialize(AUDIO_OUTPUT_SYNCH_PLAYBACK, 500, NULL, 0) < 0)
	{ return -1; }

	espeak_VOICE specs;
	memset(&specs, 0, sizeof(specs));
	specs.languages = lang;
	if (espeak_SetVoiceByProperties(&specs) != EE_OK)
	{ return -2; }

	return 0;
}

static int
luna_espeak_say(const char *text, int rate)
{
	if (!text)
	{ return -1; }

	espeak_SetParameter(espeakRATE, rate, 0);
	if (espeak_Synth(text, strlen(text) + 1, 0, POS_CHARACTER, 0, espeakCHARS_AUTO, NULL, NULL) != EE_OK)
	{ return -2; }

	return espeak_Synchronize() == EE_OK ? 0 : -3;
}

static void
luna_espeak_close(void)
{
	espeak_Terminate();
}
*/
import "C"

import (
	"context"
	"fmt"
	"unsafe"

	"luna/internal/speech"
)

// Espeak speaks through a synchronous espeak-ng instance.
type Espeak struct{}

// NewEspeak returns a factory for speech.Voice. The library keeps global
// state, so only one engine may be live at a time.
func NewEspeak(lang string) speech.Factory {
	return func() (speech.Engine, error) {
		clang := C.CString(lang)
		defer C.free(unsafe.Pointer(clang))

		if rc := C.luna_espeak_init(clang); rc != 0 {
			return nil, fmt.Errorf("espeak init failed: %d", int(rc))
		}
		return Espeak{}, nil
	}
}

func (Espeak) Say(_ context.Context, text string, rate int) error {
	if text == "" {
		return nil
	}

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))

	if rc := C.luna_espeak_say(ctext, C.int(rate)); rc != 0 {
		return fmt.Errorf("espeak say failed: %d", int(rc))
	}
	return nil
}

func (Espeak) Close() error {
	C.luna_espeak_close()
	return nil
}
