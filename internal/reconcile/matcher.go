package reconcile

// lot is an open slice of bought shares awaiting a matching sell.
type lot struct {
	qty   int
	price float64
	date  string
}

// roundTrip is a fully matched open-then-close sequence in one instrument.
type roundTrip struct {
	shares     int
	entryPrice float64 // weighted over the matched buy quantity
	exitPrice  float64 // weighted over the matching sells
	entryDate  string
	exitDate   string
}

// residualLot is the open quantity left after replaying all trades.
type residualLot struct {
	shares     int
	entryPrice float64 // weighted over the remaining unmatched buys
	entryDate  string  // earliest contributing buy
}

// matchFIFO replays one ticker's transactions (sorted by timestamp ascending)
// against a FIFO lot queue. Buys open or extend lots; sells consume the
// oldest open quantity first. Every time the running quantity returns to
// zero, one round trip is emitted. Sells exceeding the open quantity are
// clamped: the surplus is dropped rather than going short, since the model is
// long-only and the export may predate the ledger window.
func matchFIFO(txns []Transaction) ([]roundTrip, *residualLot) {
	var (
		lots  []lot
		trips []roundTrip

		// Accumulators for the round trip in progress.
		matchedQty   int
		buyCost      float64
		sellProceeds float64
		entryDate    string
	)

	openQty := func() int {
		n := 0
		for _, l := range lots {
			n += l.qty
		}
		return n
	}

	for _, txn := range txns {
		switch {
		case txn.Quantity > 0:
			lots = append(lots, lot{qty: txn.Quantity, price: txn.Price, date: txn.Date})

		case txn.Quantity < 0:
			toSell := -txn.Quantity
			if open := openQty(); toSell > open {
				toSell = open
			}
			if toSell == 0 {
				continue
			}
			if entryDate == "" && len(lots) > 0 {
				entryDate = lots[0].date
			}
			sellProceeds += float64(toSell) * txn.Price
			matchedQty += toSell

			for toSell > 0 {
				take := lots[0].qty
				if take > toSell {
					take = toSell
				}
				buyCost += float64(take) * lots[0].price
				lots[0].qty -= take
				toSell -= take
				if lots[0].qty == 0 {
					lots = lots[1:]
				}
			}

			if openQty() == 0 && matchedQty > 0 {
				trips = append(trips, roundTrip{
					shares:     matchedQty,
					entryPrice: buyCost / float64(matchedQty),
					exitPrice:  sellProceeds / float64(matchedQty),
					entryDate:  entryDate,
					exitDate:   txn.Date,
				})
				matchedQty, buyCost, sellProceeds, entryDate = 0, 0, 0, ""
			}
		}
	}

	if open := openQty(); open > 0 {
		var cost float64
		for _, l := range lots {
			cost += float64(l.qty) * l.price
		}
		return trips, &residualLot{
			shares:     open,
			entryPrice: cost / float64(open),
			entryDate:  lots[0].date,
		}
	}
	return trips, nil
}
