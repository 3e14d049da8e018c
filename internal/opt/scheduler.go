package opt

// Scheduler adjusts an optimizer's learning rate once per epoch.
type Scheduler interface {
	Step()
	GetLR() float64
}

// StepLR decays the learning rate by gamma every stepSize epochs.
type StepLR struct {
	optimizer Optimizer
	stepSize  int
	gamma     float64
	lastEpoch int
}

// NewStepLR wraps optimizer. stepSize must be positive.
func NewStepLR(optimizer Optimizer, stepSize int, gamma float64) *StepLR {
	if stepSize <= 0 {
		panic("StepLR: stepSize must be > 0")
	}
	return &StepLR{
		optimizer: optimizer,
		stepSize:  stepSize,
		gamma:     gamma,
	}
}

// Step advances one epoch.
func (s *StepLR) Step() {
	s.lastEpoch++
	if s.lastEpoch%s.stepSize == 0 {
		s.optimizer.SetLearningRate(s.optimizer.LearningRate() * s.gamma)
	}
}

// GetLR returns the optimizer's current learning rate.
func (s *StepLR) GetLR() float64 {
	return s.optimizer.LearningRate()
}
