package domain

type PinChangeStep int

const (
	PinChangeIdle PinChangeStep = iota
	PinChangeAwaitingNew
	PinChangeAwaitingConfirm
)

// PinHasher hides how PINs are stored. Matches must be safe to call with an
// empty hash.
type PinHasher interface {
	Hash(pin string) (string, error)
	Matches(hash, pin string) bool
}

// PinChange is the progress of a PIN change. The fields are unexported so the
// pending PIN can only exist while awaiting confirmation.
type PinChange struct {
	step        PinChangeStep
	pendingHash string
}

type PinChangeOutcome struct {
	Success  bool
	Step     PinChangeStep
	Message  string
	Complete bool

	committedHash string
}

func (p PinChange) Step() PinChangeStep {
	return p.step
}

// Pending returns the hash of the PIN awaiting confirmation.
func (p PinChange) Pending() (string, bool) {
	if p.step != PinChangeAwaitingConfirm {
		return "", false
	}
	return p.pendingHash, true
}

func (p PinChange) Reset() PinChange {
	return PinChange{}
}

// Advance applies input to the flow. currentHash is the hash of the PIN in use.
// The only error is a failure to hash the new PIN, in which case p is returned unchanged.
func (p PinChange) Advance(input, currentHash string, hasher PinHasher) (PinChange, PinChangeOutcome, error) {
	switch p.step {
	case PinChangeAwaitingNew:
		if !IsValidPin(input) {
			return p, PinChangeOutcome{
				Step:    PinChangeAwaitingNew,
				Message: "PIN must be exactly 4 digits.",
			}, nil
		}

		hash, err := hasher.Hash(input)
		if err != nil {
			return p, PinChangeOutcome{}, err
		}

		return PinChange{step: PinChangeAwaitingConfirm, pendingHash: hash}, PinChangeOutcome{
			Success: true,
			Step:    PinChangeAwaitingConfirm,
			Message: "New PIN entered. Please confirm.",
		}, nil

	case PinChangeAwaitingConfirm:
		if !hasher.Matches(p.pendingHash, input) {
			return PinChange{step: PinChangeAwaitingNew}, PinChangeOutcome{
				Step:    PinChangeAwaitingNew,
				Message: "PINs do not match. Enter new PIN again.",
			}, nil
		}

		return PinChange{}, PinChangeOutcome{
			Success:       true,
			Step:          PinChangeIdle,
			Message:       "PIN changed successfully!",
			Complete:      true,
			committedHash: p.pendingHash,
		}, nil

	default:
		if !hasher.Matches(currentHash, input) {
			return PinChange{}, PinChangeOutcome{
				Step:    PinChangeIdle,
				Message: "Incorrect current PIN.",
			}, nil
		}

		return PinChange{step: PinChangeAwaitingNew}, PinChangeOutcome{
			Success: true,
			Step:    PinChangeAwaitingNew,
			Message: "Current PIN verified. Enter new PIN.",
		}, nil
	}
}

// IsValidPin reports whether pin is exactly four ASCII digits.
func IsValidPin(pin string) bool {
	if len(pin) != 4 {
		return false
	}

	for _, ch := range pin {
		if ch < '0' || ch > '9' {
			return false
		}
	}

	return true
}
