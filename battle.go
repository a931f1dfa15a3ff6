/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"fmt"
)

// Card is one of the three playable symbols.
type Card string

const (
	CardRock     Card = "rock"
	CardPaper    Card = "paper"
	CardScissors Card = "scissors"
)

// beats maps each symbol to the symbol it defeats.
var beats = map[Card]Card{
	CardRock:     CardScissors,
	CardScissors: CardPaper,
	CardPaper:    CardRock,
}

// parseCard rejects anything outside the three known symbols. A missing
// symbol is an error, never a substituted default.
func parseCard(s string) (Card, error) {
	switch c := Card(s); c {
	case CardRock, CardPaper, CardScissors:
		return c, nil
	case "":
		return "", fmt.Errorf("missing card symbol")
	default:
		return "", fmt.Errorf("unknown card symbol: %q", s)
	}
}

func parseCards(symbols []string) ([]Card, error) {
	if len(symbols) != 2 {
		return nil, fmt.Errorf("expected exactly 2 cards, got %d", len(symbols))
	}

	cards := make([]Card, 0, 2)
	for _, s := range symbols {
		card, err := parseCard(s)
		if err != nil {
			return nil, err
		}
		cards = append(cards, card)
	}

	return cards, nil
}

// resolveBattle returns 1 if the first card wins, 2 if the second card
// wins, or 0 on a draw. The beats relation is total and cyclic, so for
// any two distinct symbols exactly one side wins.
func resolveBattle(card1, card2 Card) int {
	if card1 == card2 {
		return 0
	}
	if beats[card1] == card2 {
		return 1
	}
	return 2
}
