package plan

import (
	"context"
	"strings"

	"github.com/cockroachdb/redact"

	"github.com/dshills/quantaplan/internal/errors"
	"github.com/dshills/quantaplan/internal/log"
	"github.com/dshills/quantaplan/internal/sql/cursor"
	"github.com/dshills/quantaplan/internal/sql/types"
)

// Device is a storage device that may execute plan subtrees natively.
type Device interface {
	Name() string
	// Prepare translates the subtree rooted at id. Declining is reported
	// through the returned plan, not as an error.
	Prepare(ctx context.Context, p *Plan, id NodeID) (DevicePlan, error)
}

// DevicePlan is a device's translation of a plan subtree.
type DevicePlan interface {
	// IsSupported reports whether the device accepted the subtree.
	IsSupported() bool
	// CouldSupport reports that support depends on parameter values, so
	// the host executes the node.
	CouldSupport() bool
	// TranslationMessages explains why the device declined.
	TranslationMessages() []redact.RedactableString
	// Open returns an unopened cursor over the subtree's result.
	Open(ec *ExecContext, env *Env) (cursor.Cursor, error)
}

// ScalarDevicePlan is a device plan that evaluates a scalar node, such as
// an aggregate the device computes natively.
type ScalarDevicePlan interface {
	DevicePlan
	Evaluate(ec *ExecContext, env *Env) (types.Value, error)
}

// determineDevice negotiates devices bottom-up. A node whose children use
// more than one device, or any child without a device, has no device.
func (b *Binder) determineDevice(p *Plan, id NodeID) error {
	n := p.nodes[id]
	if n.state >= StateDeviceNegotiated {
		return nil
	}
	for _, c := range n.Children {
		if err := b.determineDevice(p, c); err != nil {
			return err
		}
	}

	dev := n.Device
	noDevice := false
	for _, c := range n.Children {
		cn := p.nodes[c]
		if cn.NoDevice {
			noDevice = true
			continue
		}
		if cn.Device == nil {
			continue
		}
		if dev == nil {
			dev = cn.Device
		} else if dev != cn.Device {
			noDevice = true
		}
	}
	if noDevice {
		n.NoDevice = true
		n.Device = nil
		return n.advance(StateDeviceNegotiated)
	}
	n.Device = dev

	if dev != nil && n.Op.shouldSupport() {
		dp, err := dev.Prepare(b.ctx, p, id)
		if err != nil {
			return b.compileError(n, err)
		}
		switch {
		case dp.IsSupported() && dp.CouldSupport():
			n.DeviceSupported = true
			n.CouldSupport = true
		case dp.IsSupported():
			n.DeviceSupported = true
			n.DevicePlan = dp
		case !n.Op.tolerateUnsupported():
			b.warn(n, deviceDeclined(dev, n, dp))
		default:
			b.logger.Debug("device declined",
				log.String("device", dev.Name()),
				log.String("node", n.String()),
				log.String("reason", joinMessages(dp.TranslationMessages()).Redact().StripMarkers()))
		}
	}
	if h, ok := n.Op.(interface {
		deviceNegotiated(b *Binder, p *Plan, n *Node)
	}); ok {
		h.deviceNegotiated(b, p, n)
	}
	return n.advance(StateDeviceNegotiated)
}

func deviceDeclined(dev Device, n *Node, dp DevicePlan) error {
	msg := joinMessages(dp.TranslationMessages())
	return errors.Newf(errors.DeviceUnsupported, "device %s does not support %s", dev.Name(), n.Kind).
		WithDetail(msg.Redact().StripMarkers())
}

func joinMessages(msgs []redact.RedactableString) redact.RedactableString {
	parts := make([]string, len(msgs))
	for i, m := range msgs {
		parts[i] = string(m)
	}
	return redact.RedactableString(strings.Join(parts, "; "))
}
