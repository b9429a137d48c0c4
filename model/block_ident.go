package model

// Ident and ParentIdent let forkdag.Graph operate generically over any of
// the three block shapes below without dynamic dispatch.

func (b BitcoinBlock) Ident() BlockIdentifier       { return b.BlockIdentifier }
func (b BitcoinBlock) ParentIdent() BlockIdentifier { return b.ParentBlockIdentifier }

func (b StacksBlock) Ident() BlockIdentifier       { return b.BlockIdentifier }
func (b StacksBlock) ParentIdent() BlockIdentifier { return b.ParentBlockIdentifier }

func (b StacksMicroblock) Ident() BlockIdentifier       { return b.BlockIdentifier }
func (b StacksMicroblock) ParentIdent() BlockIdentifier { return b.ParentBlockIdentifier }
