package ledger

// Service bundles the engine's operations over one Store. All of them share
// a single Controller, and so a single set of account locks.
type Service struct {
	*Accounts
	*Approvals
	*Spender
	*Queries

	ctrl *Controller
}

// New wires a Service. targets is consulted by Spend before any lock is
// taken.
func New(s Store, targets TargetValidator, opts ...Option) *Service {
	o := buildOptions(opts)
	ctrl := newController(s, o)
	return &Service{
		Accounts:  newAccounts(ctrl, o),
		Approvals: newApprovals(ctrl, o),
		Spender:   newSpender(ctrl, targets, o),
		Queries:   newQueries(s, o),
		ctrl:      ctrl,
	}
}

func (s *Service) Controller() *Controller {
	return s.ctrl
}
