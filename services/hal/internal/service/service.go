// Package service is the HAL control loop: it applies config/hal, owns one
// measure worker per bus and one RX reader per UART, and maps capabilities
// onto hal/capability/<kind>/<id>/... topics.
package service

import (
	"context"
	"time"

	"sc16is752-go/bus"
	"sc16is752-go/errcode"
	"sc16is752-go/services/hal/internal/consts"
	"sc16is752-go/services/hal/internal/drvshim"
	"sc16is752-go/services/hal/internal/halcore"
	"sc16is752-go/services/hal/internal/halerr"
	"sc16is752-go/services/hal/internal/registry"
	"sc16is752-go/services/hal/internal/uartio"
	"sc16is752-go/services/hal/internal/util"
	"sc16is752-go/services/hal/internal/worker"
	"sc16is752-go/types"
	"sc16is752-go/x/timex"
)

// unitKey names one capability inside a device.
type unitKey struct {
	kind string
	unit int
}

// capKey is the public address hal/capability/<kind>/<id>.
type capKey struct {
	kind string
	id   int
}

type capTarget struct {
	devID string
	unit  int
}

type devEntry struct {
	adaptor halcore.Adaptor
	caps    map[unitKey]int // unit -> public id
	busID   string
}

const (
	minPeriod = 200 * time.Millisecond
	maxPeriod = time.Hour
)

type Service struct {
	conn  *bus.Connection
	buses halcore.I2CBusFactory

	workers map[string]*worker.MeasureWorker // busID -> worker
	results chan halcore.Result

	devices   map[string]devEntry
	capToDev  map[capKey]capTarget
	nextCapID map[string]int

	devPeriod  map[string]time.Duration
	devNextDue map[string]time.Time
	timer      *time.Timer

	uartW      *uartio.Worker
	uartCancel map[string][]func()
	uartEcho   map[capTarget]bool
}

var (
	topicConfigHAL = bus.Topic{consts.TokConfig, consts.TokHAL}
	topicCtrl      = bus.Topic{consts.TokHAL, consts.TokCapability, bus.Single, bus.Single, consts.TokControl, bus.Single}
)

// New wraps buses so every bus id gets one transfer lock.
func New(conn *bus.Connection, buses halcore.I2CBusFactory) *Service {
	return &Service{
		conn:       conn,
		buses:      drvshim.NewFactory(buses),
		workers:    map[string]*worker.MeasureWorker{},
		results:    make(chan halcore.Result, 64),
		devices:    map[string]devEntry{},
		capToDev:   map[capKey]capTarget{},
		nextCapID:  map[string]int{},
		devPeriod:  map[string]time.Duration{},
		devNextDue: map[string]time.Time{},
		uartW:      uartio.New(64),
		uartCancel: map[string][]func(){},
		uartEcho:   map[capTarget]bool{},
	}
}

func (s *Service) Run(ctx context.Context) {
	cfgSub := s.conn.Subscribe(topicConfigHAL)
	ctrlSub := s.conn.Subscribe(topicCtrl)
	defer s.conn.Unsubscribe(cfgSub)
	defer s.conn.Unsubscribe(ctrlSub)

	s.publishState("idle", "awaiting_config", nil)

	s.timer = time.NewTimer(time.Hour)
	if !s.timer.Stop() {
		util.DrainTimer(s.timer)
	}
	uartEv := s.uartW.Events()

	for {
		if next := s.earliestDevDue(); next.IsZero() {
			util.ResetTimer(s.timer, time.Hour)
		} else {
			util.ResetTimer(s.timer, time.Until(next))
		}

		select {
		case <-ctx.Done():
			for _, cs := range s.uartCancel {
				for _, c := range cs {
					c()
				}
			}
			s.publishState("stopped", "context_cancelled", nil)
			return

		case msg := <-cfgSub.Channel():
			var cfg types.HALConfig
			if err := util.DecodeJSON(msg.Payload, &cfg); err != nil {
				s.publishState("error", "config_invalid", err)
				continue
			}
			if err := s.applyConfig(ctx, cfg); err != nil {
				s.publishState("error", "apply_config_failed", err)
				continue
			}
			s.publishState("ready", "configured", nil)

		case msg := <-ctrlSub.Channel():
			s.handleControl(msg)

		case <-s.timer.C:
			now := time.Now()
			for devID, due := range s.devNextDue {
				if !now.Before(due) {
					s.submitMeasure(devID, false)
					s.bumpDevNext(devID, now)
				}
			}

		case r := <-s.results:
			s.handleResult(r)

		case ev := <-uartEv:
			s.handleUARTEvent(ev)
		}
	}
}

// ---- config ----

// applyConfig builds new devices and tears down ones no longer listed. A
// device that fails to build is logged and skipped; the rest still apply.
func (s *Service) applyConfig(ctx context.Context, cfg types.HALConfig) error {
	seen := map[string]struct{}{}
	var firstErr error

	for i := range cfg.Devices {
		d := &cfg.Devices[i]
		seen[d.ID] = struct{}{}
		if _, exists := s.devices[d.ID]; exists {
			continue
		}
		b, ok := registry.Lookup(d.Type)
		if !ok {
			println("[hal] no builder for type:", d.Type, "id:", d.ID)
			continue
		}
		out, err := b.Build(registry.BuildInput{
			Ctx:        ctx,
			Buses:      s.buses,
			DeviceID:   d.ID,
			Type:       d.Type,
			ParamsJSON: d.Params,
			BusRefType: d.BusRef.Type,
			BusRefID:   d.BusRef.ID,
		})
		if err != nil {
			println("[hal] build failed for:", d.ID, "err:", err.Error())
			if firstErr == nil {
				firstErr = errcode.Wrap(d.ID, err)
			}
			continue
		}
		s.addDevice(ctx, d.ID, out)
	}

	for devID := range s.devices {
		if _, ok := seen[devID]; !ok {
			s.removeDevice(devID)
		}
	}
	return firstErr
}

func (s *Service) addDevice(ctx context.Context, devID string, out registry.BuildOutput) {
	if out.BusID != "" {
		if _, ok := s.workers[out.BusID]; !ok {
			w := worker.New(halcore.WorkerConfig{}, s.results)
			w.Start(ctx)
			s.workers[out.BusID] = w
		}
	}

	ad := out.Adaptor
	entry := devEntry{adaptor: ad, busID: out.BusID, caps: map[unitKey]int{}}
	now := timex.NowMs()
	for _, ci := range ad.Capabilities() {
		id := s.nextCapID[ci.Kind]
		s.nextCapID[ci.Kind]++
		entry.caps[unitKey{ci.Kind, ci.Unit}] = id
		s.capToDev[capKey{ci.Kind, id}] = capTarget{devID, ci.Unit}
		s.pubRet(ci.Kind, id, consts.TokInfo, ci.Info)
		s.pubRet(ci.Kind, id, consts.TokState, types.CapabilityState{Link: types.LinkUp, TS: now})
	}
	s.devices[devID] = entry

	if out.SampleEvery > 0 {
		s.devPeriod[devID] = util.ClampDuration(out.SampleEvery, minPeriod, maxPeriod)
		s.devNextDue[devID] = time.Now().Add(minPeriod)
	}

	for _, u := range out.UARTs {
		if u.Port == nil {
			continue
		}
		cancel, err := s.uartW.Register(ctx, uartio.ReaderCfg{
			DevID:         devID,
			Unit:          u.Unit,
			Port:          u.Port,
			Mode:          u.Mode,
			MaxFrame:      u.MaxFrame,
			IdleFlush:     time.Duration(u.IdleFlushMS) * time.Millisecond,
			PublishTXEcho: u.PublishTXEcho,
		})
		if err != nil {
			continue
		}
		s.uartCancel[devID] = append(s.uartCancel[devID], cancel)
		s.uartEcho[capTarget{devID, u.Unit}] = u.PublishTXEcho
	}
}

func (s *Service) removeDevice(devID string) {
	ent := s.devices[devID]
	now := timex.NowMs()
	for uk, id := range ent.caps {
		s.pubRet(uk.kind, id, consts.TokInfo, nil)
		s.pubRet(uk.kind, id, consts.TokState, types.CapabilityState{Link: types.LinkDown, TS: now})
		delete(s.capToDev, capKey{uk.kind, id})
		delete(s.uartEcho, capTarget{devID, uk.unit})
	}
	for _, c := range s.uartCancel[devID] {
		c()
	}
	delete(s.uartCancel, devID)
	delete(s.devices, devID)
	delete(s.devPeriod, devID)
	delete(s.devNextDue, devID)
}

// ---- control ----

func (s *Service) handleControl(msg *bus.Message) {
	if len(msg.Topic) < 6 {
		return
	}
	kind, _ := msg.Topic[2].(string)
	idNum, ok := asInt(msg.Topic[3])
	if !ok || kind == "" {
		s.replyErr(msg, halerr.ErrInvalidCapAddr)
		return
	}
	tgt, ok := s.capToDev[capKey{kind, idNum}]
	if !ok {
		s.replyErr(msg, halerr.ErrUnknownCap)
		return
	}
	method, _ := msg.Topic[5].(string)

	switch method {
	case consts.CtrlReadNow:
		if s.submitMeasure(tgt.devID, true) {
			s.bumpDevNext(tgt.devID, time.Now())
			s.conn.Reply(msg, types.ReadNowAck{OK: true}, false)
		} else {
			s.replyErr(msg, halerr.ErrBusy)
		}
		return
	case consts.CtrlSetRate:
		var p types.SetRate
		if err := util.DecodeJSON(msg.Payload, &p); err != nil || p.PeriodMS <= 0 {
			s.replyErr(msg, halerr.ErrInvalidPeriod)
			return
		}
		period := util.ClampDuration(time.Duration(p.PeriodMS)*time.Millisecond, minPeriod, maxPeriod)
		s.devPeriod[tgt.devID] = period
		s.bumpDevNext(tgt.devID, time.Now())
		s.conn.Reply(msg, types.SetRateAck{OK: true, PeriodMS: int(period / time.Millisecond)}, false)
		return
	}

	ent, ok := s.devices[tgt.devID]
	if !ok || ent.adaptor == nil {
		s.replyErr(msg, halerr.ErrNoAdaptor)
		return
	}
	var (
		res any
		err error
	)
	if uc, ok := ent.adaptor.(halcore.UnitController); ok {
		res, err = uc.ControlUnit(kind, tgt.unit, method, msg.Payload)
	} else {
		res, err = ent.adaptor.Control(kind, method, msg.Payload)
	}
	if err != nil {
		s.replyErr(msg, err)
		return
	}
	s.conn.Reply(msg, res, false)

	if kind == consts.KindUART && method == consts.UARTWrite && s.uartEcho[tgt] {
		if data, ok := uartio.DecodeWrite(msg.Payload); ok {
			s.uartW.EmitTX(tgt.devID, tgt.unit, data)
		}
	}
}

// ---- measurement ----

func (s *Service) submitMeasure(devID string, prio bool) bool {
	ent, ok := s.devices[devID]
	if !ok {
		return false
	}
	w := s.workers[ent.busID]
	if w == nil {
		return false
	}
	return w.Submit(halcore.MeasureReq{ID: devID, Adaptor: ent.adaptor, Prio: prio})
}

func (s *Service) bumpDevNext(devID string, from time.Time) {
	period, ok := s.devPeriod[devID]
	if !ok {
		return
	}
	s.devNextDue[devID] = from.Add(period)
}

func (s *Service) earliestDevDue() time.Time {
	var min time.Time
	for _, t := range s.devNextDue {
		if !t.IsZero() && (min.IsZero() || t.Before(min)) {
			min = t
		}
	}
	return min
}

// ---- results & events ----

func (s *Service) handleResult(r halcore.Result) {
	ent, ok := s.devices[r.ID]
	if !ok {
		return
	}
	now := timex.NowMs()
	if r.Err != nil {
		code := errorCode(r.Err)
		for uk, id := range ent.caps {
			s.pubRet(uk.kind, id, consts.TokState, types.CapabilityState{Link: types.LinkDegraded, TS: now, Error: code})
		}
		return
	}
	for _, rd := range r.Sample {
		id, ok := ent.caps[unitKey{rd.Kind, rd.Unit}]
		if !ok {
			continue
		}
		s.conn.Publish(s.conn.NewMessage(capTopic(rd.Kind, id, consts.TokValue), rd.Payload, false))
		s.pubRet(rd.Kind, id, consts.TokState, types.CapabilityState{Link: types.LinkUp, TS: now})
	}
}

func (s *Service) handleUARTEvent(ev uartio.Event) {
	ent, ok := s.devices[ev.DevID]
	if !ok {
		return
	}
	id, ok := ent.caps[unitKey{consts.KindUART, ev.Unit}]
	if !ok {
		return
	}
	dir := types.UARTRx
	if ev.Dir == "tx" {
		dir = types.UARTTx
	}
	s.conn.Publish(s.conn.NewMessage(
		capTopic(consts.KindUART, id, consts.TokEvent),
		types.UARTEvent{Dir: dir, Data: ev.Data, N: len(ev.Data), TS: ev.TS.UnixMilli()},
		false))
}

// ---- bus helpers ----

func (s *Service) publishState(level, status string, err error) {
	pl := types.HALState{Level: level, Status: status, TS: timex.NowMs()}
	if err != nil {
		pl.Error = errorCode(err)
	}
	s.conn.Publish(s.conn.NewMessage(bus.Topic{consts.TokHAL, consts.TokState}, pl, true))
}

// errorCode prefers a tagged errcode; HAL sentinels are already codes.
func errorCode(err error) string {
	if c := errcode.Of(err); c != errcode.Error {
		return string(c)
	}
	return err.Error()
}

func (s *Service) replyErr(req *bus.Message, err error) {
	s.conn.Reply(req, types.ErrorReply{OK: false, Error: errorCode(err)}, false)
}

func capTopic(kind string, id int, suffix string) bus.Topic {
	return bus.Topic{consts.TokHAL, consts.TokCapability, kind, id, suffix}
}

func (s *Service) pubRet(kind string, id int, suffix string, p any) {
	s.conn.Publish(s.conn.NewMessage(capTopic(kind, id, suffix), p, true))
}

func asInt(t any) (int, bool) {
	switch v := t.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case uint8:
		return int(v), true
	case float64:
		return int(v), true
	case string:
		n := 0
		if v == "" {
			return 0, false
		}
		for _, c := range v {
			if c < '0' || c > '9' {
				return 0, false
			}
			n = n*10 + int(c-'0')
		}
		return n, true
	default:
		return 0, false
	}
}
