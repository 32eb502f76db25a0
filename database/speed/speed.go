// Package speed maps the encoded terminal output speed (ospeed) to a raw
// baud rate, and can query the encoded speed from an open terminal.
package speed

// Baudrate returns the raw bits-per-second for an encoded ospeed. The
// second return is false for an ospeed outside the table.
func Baudrate(ospeed int) (int, bool) {
	b, ok := table[ospeed]
	return b, ok
}

// table is the classic Bxxx encoding: 0..15 covers the historical rates,
// 4097..4111 the extended CBAUDEX ones.
var table = map[int]int{
	0:    0,
	1:    50,
	2:    75,
	3:    110,
	4:    134,
	5:    150,
	6:    200,
	7:    300,
	8:    600,
	9:    1200,
	10:   1800,
	11:   2400,
	12:   4800,
	13:   9600,
	14:   19200,
	15:   38400,
	4097: 57600,
	4098: 115200,
	4099: 230400,
	4100: 460800,
	4101: 500000,
	4102: 576000,
	4103: 921600,
	4104: 1000000,
	4105: 1152000,
	4107: 2000000,
	4108: 2500000,
	4109: 3000000,
	4110: 3500000,
	4111: 4000000,
}
