package wizard

// Step is one screen of the kiosk flow.
type Step string

const (
	StepWelcome     Step = "welcome"
	StepInfo        Step = "info"
	StepName        Step = "name"
	StepWish        Step = "wish"
	StepCamera      Step = "camera"
	StepTransform   Step = "transform"
	StepResult      Step = "result"
	StepCertificate Step = "certificate"
)

// InitialStep is where every session starts and every restart returns.
const InitialStep = StepWelcome

// predecessors holds the fixed target of Back for each step that has one.
var predecessors = map[Step]Step{
	StepInfo:        StepWelcome,
	StepName:        StepWelcome,
	StepWish:        StepName,
	StepCamera:      StepWish,
	StepCertificate: StepResult,
}

// Predecessor returns the step Back leads to.
func (s Step) Predecessor() (Step, bool) {
	p, ok := predecessors[s]
	return p, ok
}

func (s Step) Valid() bool {
	switch s {
	case StepWelcome, StepInfo, StepName, StepWish, StepCamera, StepTransform, StepResult, StepCertificate:
		return true
	}
	return false
}

func (s Step) String() string { return string(s) }
