package command

// Layout and color constants shared by the emitters and renderers.
const (
	WidthPerElement = 50
	NodeHeight      = 30
	StartingX       = 400
	StartingY       = 50
	LevelSpacing    = 80
	NodeGap         = 20

	BackgroundColor = "#FFFFFF"
	ForegroundColor = "#000000"
	HighlightColor  = "#1976d2"
	EdgeColor       = "#000000"
	LeafChainColor  = "#9e9e9e"
)

// Recorder collects emitted commands. A disabled recorder drops everything,
// which lets the tree run without any visualization attached.
type Recorder struct {
	enabled bool
	cmds    []Command
}

// NewRecorder returns a recorder that records only when enabled is true.
func NewRecorder(enabled bool) *Recorder {
	return &Recorder{enabled: enabled}
}

// Enabled reports whether commands are kept.
func (r *Recorder) Enabled() bool {
	return r.enabled
}

// SetEnabled switches recording on or off. Already recorded commands stay.
func (r *Recorder) SetEnabled(enabled bool) {
	r.enabled = enabled
}

// Emit appends commands.
func (r *Recorder) Emit(cmds ...Command) {
	if r.enabled {
		r.cmds = append(r.cmds, cmds...)
	}
}

// Step closes the current burst.
func (r *Recorder) Step() {
	r.Emit(Step{})
}

// Len returns the number of recorded commands.
func (r *Recorder) Len() int {
	return len(r.cmds)
}

// Take returns the recorded commands and starts a new log.
func (r *Recorder) Take() []Command {
	cmds := r.cmds
	r.cmds = nil
	return cmds
}

// Discard drops the recorded commands.
func (r *Recorder) Discard() {
	r.cmds = nil
}
