package domain

// Kind identifies one of the four tracked ingredients.
type Kind string

const (
	Bun     Kind = "bun"
	Patty   Kind = "patty"
	Lettuce Kind = "lettuce"
	Tomato  Kind = "tomato"
)

// KindOrder is the global lock-acquisition order. Every transaction that
// touches more than one kind must visit kinds in this order so that no two
// transactions can circular-wait on each other's rows.
var KindOrder = [4]Kind{Bun, Patty, Lettuce, Tomato}

// Fragment is one stock counter row inside an ingredient's pool.
type Fragment struct {
	ID    int
	Stock int
}

// Consumed records how many units a reservation drew from one fragment.
type Consumed struct {
	FragmentID int `json:"fragment_id"`
	Units      int `json:"units"`
}
