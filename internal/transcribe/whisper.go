package transcribe

/*
#cgo CFLAGS: -I${SRCDIR}/../../whisper.cpp/include -I${SRCDIR}/../../whisper.cpp/ggml/include
#cgo LDFLAGS: -L${SRCDIR}/../../whisper.cpp/build/src -L${SRCDIR}/../../whisper.cpp/build/ggml/src -lwhisper -lggml -lm -Wl,-rpath,${SRCDIR}/../../whisper.cpp/build/src -Wl,-rpath,${SRCDIR}/../../whisper.cpp/build/ggml/src
#include "whisper.h"
#include <stdlib.h>
*/
import "C"
import (
	"fmt"
	"os"
	"strings"
	"unsafe"
)

// WhisperRecognizer runs the local whisper.cpp model. The context is not
// reentrant; the owning Engine serializes calls.
type WhisperRecognizer struct {
	ctx      *C.struct_whisper_context
	language string
	prompt   string
}

// NewWhisperRecognizer loads a Whisper model from the given path
func NewWhisperRecognizer(modelPath, language, initialPrompt string) (*WhisperRecognizer, error) {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", modelPath)
	}

	cModelPath := C.CString(modelPath)
	defer C.free(unsafe.Pointer(cModelPath))

	ctx := C.whisper_init_from_file(cModelPath)
	if ctx == nil {
		return nil, fmt.Errorf("failed to load model from: %s", modelPath)
	}

	return &WhisperRecognizer{
		ctx:      ctx,
		language: language,
		prompt:   initialPrompt,
	}, nil
}

// Transcribe runs inference on a normalized mono chunk. Each chunk is
// transcribed independently (no conditioning on previous text). Returns the
// concatenated segment text and the average log-probability of each segment.
func (r *WhisperRecognizer) Transcribe(chunk []float32) (string, []float64, error) {
	if r.ctx == nil {
		return "", nil, fmt.Errorf("model not loaded")
	}
	if len(chunk) == 0 {
		return "", nil, fmt.Errorf("audio chunk is empty")
	}

	params := C.whisper_full_default_params(C.WHISPER_SAMPLING_GREEDY)

	cLanguage := C.CString(r.language)
	defer C.free(unsafe.Pointer(cLanguage))
	params.language = cLanguage

	var cPrompt *C.char
	if r.prompt != "" {
		cPrompt = C.CString(r.prompt)
		defer C.free(unsafe.Pointer(cPrompt))
		params.initial_prompt = cPrompt
	}

	params.translate = C.bool(false)
	params.no_context = C.bool(true)
	params.print_progress = C.bool(false)
	params.print_realtime = C.bool(false)

	result := C.whisper_full(
		r.ctx,
		params,
		(*C.float)(unsafe.Pointer(&chunk[0])),
		C.int(len(chunk)),
	)
	if result != 0 {
		return "", nil, fmt.Errorf("whisper_full failed with code: %d", result)
	}

	nSegments := int(C.whisper_full_n_segments(r.ctx))

	var sb strings.Builder
	logProbs := make([]float64, 0, nSegments)
	for i := 0; i < nSegments; i++ {
		text := C.whisper_full_get_segment_text(r.ctx, C.int(i))
		sb.WriteString(C.GoString(text))

		// Segment avg log-probability = mean token log-probability
		nTokens := int(C.whisper_full_n_tokens(r.ctx, C.int(i)))
		if nTokens == 0 {
			continue
		}
		var sum float64
		for j := 0; j < nTokens; j++ {
			data := C.whisper_full_get_token_data(r.ctx, C.int(i), C.int(j))
			sum += float64(data.plog)
		}
		logProbs = append(logProbs, sum/float64(nTokens))
	}

	return sb.String(), logProbs, nil
}

// Close releases the model context
func (r *WhisperRecognizer) Close() {
	if r.ctx != nil {
		C.whisper_free(r.ctx)
		r.ctx = nil
	}
}
