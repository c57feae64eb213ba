package fleet

// PackCargo greedily fills free capacity with deuterium first, then
// crystal, then metal, from the available amounts.
func PackCargo(freeCapacity int, available Resources) Resources {
	packed := Resources{}

	take := func(amount int) int {
		if amount > freeCapacity {
			amount = freeCapacity
		}
		freeCapacity -= amount
		return amount
	}

	packed.Deuterium = take(available.Deuterium)
	packed.Crystal = take(available.Crystal)
	packed.Metal = take(available.Metal)
	return packed
}
