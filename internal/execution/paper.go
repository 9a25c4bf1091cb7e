package execution

import (
	"context"
	"fmt"
	"time"

	"ltpbot/internal/logger"
	"ltpbot/internal/market"
)

// Paper fills every order immediately at the quoter's current price.
type Paper struct {
	quoter market.Quoter
	now    func() time.Time
}

func NewPaper(quoter market.Quoter) *Paper {
	return &Paper{quoter: quoter, now: time.Now}
}

func (p *Paper) Submit(ctx context.Context, req Request) (Fill, error) {
	if err := req.validate(); err != nil {
		return Fill{}, err
	}
	q, err := p.quoter.Quote(ctx, req.ScripCode, req.Exchange)
	if err != nil {
		return Fill{}, fmt.Errorf("quote before %s: %w", req.Side, err)
	}
	if q.Price <= 0 {
		return Fill{}, fmt.Errorf("quote before %s: %w", req.Side, market.ErrNoPrice)
	}
	logger.Infof("[DUMMY] %s %d units of %d at simulated LTP %.2f", req.Side, req.Quantity, req.ScripCode, q.Price)
	return Fill{
		Price:           q.Price,
		ExternalOrderID: fmt.Sprintf("DUMMY_%d", p.now().UnixMilli()),
	}, nil
}
