package pdfaudio

// envelope is the shape every JSON endpoint shares. Errors come back with
// success missing or false and a message in "error".
type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// UploadResult is the /upload response
type UploadResult struct {
	TempFilename string `json:"temp_filename"`
	TotalPages   int    `json:"total_pages"`
	Filename     string `json:"filename,omitempty"`
}

// ConvertRequest is the /convert request body
type ConvertRequest struct {
	Filename     string `json:"filename"`
	PageNum      int    `json:"page_num"`
	TempFilename string `json:"temp_filename"`
}

// ConvertResult is the /convert response. When AlreadyConverted is false the
// audio file does not exist yet and must be polled for.
type ConvertResult struct {
	AudioFile        string `json:"audio_file"`
	AlreadyConverted bool   `json:"already_converted"`
	Message          string `json:"message,omitempty"`
}

// SummaryRef names the page a summary request is about. The reference server
// summarizes whatever text it extracted last and ignores this body; sending it
// keeps the request self-describing.
type SummaryRef struct {
	TempFilename string `json:"temp_filename,omitempty"`
	PageNum      int    `json:"page_num,omitempty"`
}

// SummaryResult is the /summarize response
type SummaryResult struct {
	Summary string `json:"summary"`
}

// SummaryAudioResult is the /summary-audio response
type SummaryAudioResult struct {
	AudioFile string `json:"audio_file"`
	Message   string `json:"message,omitempty"`
}

type uploadResponse struct {
	envelope
	UploadResult
}

type convertResponse struct {
	envelope
	ConvertResult
}

type summaryResponse struct {
	envelope
	SummaryResult
}

type summaryAudioResponse struct {
	envelope
	SummaryAudioResult
}
