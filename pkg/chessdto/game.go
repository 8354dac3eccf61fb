package chessdto

// GameState is what the view shows about the current game.
type GameState struct {
	GameUUID   string
	HumanSide  string
	SideToMove string
	State      string
	MoveCount  int
	MovesSAN   []string
	FEN        string
	Status     string
	Outcome    string
	Peek       bool
}

type Move struct {
	Mover      string
	ByEngine   bool
	Ply        int
	SAN        string
	UCI        string
	Speech     string
	Check      bool
	Checkmate  bool
	BoardImage []byte
}

type Options struct {
	EnginePath string
	Depth      int
	AutoPlay   bool
}
