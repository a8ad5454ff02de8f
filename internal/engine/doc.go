// Package engine contains the game loop and simulation logic.
// This is the heartbeat of ImmoLife: the clock advances the calendar, the monthly
// settlement ages properties, churns the market and books rent and loan payments.
//
// Every command, query and tick runs under one lock. Events produced while the lock
// is held are queued and delivered after it is released, in the order they were produced.
package engine
