package procedure

import (
	"context"
	"errors"
)

// RemediationCommand is the corrective command named by the reachability
// advisory.
const RemediationCommand = "opsforge post-setup external-nics"

// diagnose inspects collected failures for the reachability signature and,
// when the network-topology service confirms the condition, emits a one-time
// remediation instruction. The diagnosis never suppresses or alters the
// returned error; it is purely a side-channel notification, and it runs at
// most once per invocation no matter how many failures match.
func (e *Engine) diagnose(ctx context.Context, errs []error) {
	if e.topology == nil {
		return
	}

	matched := false
	for _, err := range errs {
		var pe *Error
		if errors.As(err, &pe) && pe.Kind == KindClient && pe.Cause == CauseNoExternalAccess {
			matched = true
			break
		}
	}
	if !matched {
		return
	}

	reach, err := e.topology.CheckExternalReachability(ctx)
	if err != nil {
		e.log.WithError(err).Debug("reachability check failed, skipping diagnosis")
		return
	}

	if reach.NeedsExternalNIC {
		e.log.Warnf("remote sources are unreachable from this zone; run %q to add external NICs, then retry", RemediationCommand)
	}
}
