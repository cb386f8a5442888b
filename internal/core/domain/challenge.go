package domain

// Challenge é um desafio aritmético efêmero; o hash viaja pelo cliente.
type Challenge struct {
	Label  string
	Hash   string
	Answer int
}

// SecurityFields são os campos anti-bot enviados junto com o formulário.
type SecurityFields struct {
	Honeypot string
	Answer   string
	Hash     string
}
