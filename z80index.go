package main

// execIndex handles a DD or FD prefix: fetch the real opcode and run
// it with HL redirected to IX or IY. Chained prefixes keep only the
// last one, and a prefix in front of an instruction that cannot use it
// simply costs the extra fetch.
func (c *Z180) execIndex(p byte) int {
	c.prefix = p
	op := c.fetchM1()
	for op == 0xDD || op == 0xFD {
		c.prefix = op
		op = c.fetchM1()
	}
	t := 4 + c.exec(op)
	c.prefix = 0
	return t
}
