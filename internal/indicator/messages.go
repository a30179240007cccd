package indicator

type messages struct {
	recording  string
	processing string
	complete   string
	errorText  string
}

var defaultMessages = messages{
	recording:  "Recording…",
	processing: "Transcribing…",
	complete:   "Transcription Complete",
	errorText:  "Transcription failed",
}
