package ekfweb

import (
	"encoding/json"
	"net/url"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/babetCode/IMU-gait-analysis/logging"
	"github.com/babetCode/IMU-gait-analysis/sim"
)

// Publisher sends each snapshot of a run to an ekfweb server over a websocket.
type Publisher struct {
	u      url.URL
	c      *websocket.Conn
	logger *zap.SugaredLogger
}

// NewPublisher connects to the ekfweb server at host (host:port).
func NewPublisher(host string, logger *zap.SugaredLogger) (*Publisher, error) {
	p := &Publisher{
		u:      url.URL{Scheme: "ws", Host: host, Path: Path},
		logger: logging.OrNop(logger),
	}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) connect() (err error) {
	p.c, _, err = websocket.DefaultDialer.Dial(p.u.String(), nil)
	return errors.Wrapf(err, "ekfweb: dialing %s", p.u.String())
}

// Consume publishes s. If the write fails the message is dropped and the
// publisher redials once for the next one.
func (p *Publisher) Consume(s sim.Snapshot) error {
	msg, err := json.Marshal(NewOrientationData(s))
	if err != nil {
		return errors.Wrap(err, "ekfweb: marshalling orientation")
	}
	if p.c == nil {
		if err := p.connect(); err != nil {
			return err
		}
	}
	if err := p.c.WriteMessage(websocket.TextMessage, msg); err != nil {
		p.logger.Warnw("error writing to websocket, redialing", "error", err)
		p.c.Close()
		p.c = nil
		if err2 := p.connect(); err2 != nil {
			return errors.Wrapf(err, "ekfweb: write failed, redial failed too (%v)", err2)
		}
		return errors.Wrap(err, "ekfweb: write failed, message dropped")
	}
	return nil
}

// Close says goodbye to the server and closes the connection.
func (p *Publisher) Close() error {
	if p.c == nil {
		return nil
	}
	defer p.c.Close()
	err := p.c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return errors.Wrap(err, "ekfweb: closing websocket")
}
