package i18n

var messagesPtBR = map[string]string{
	CodeGameNameEmpty:               "O nome do jogo é obrigatório.",
	CodeGameOwnerMissing:            "O dono do jogo é obrigatório.",
	CodeGameInvalidStatusTransition: "O jogo não pode mudar para esse estado.",
	CodeGameStatusDisallowsOp:       "O jogo não está no estado certo para esta ação.",
	CodeGameRosterEmpty:             "O jogo precisa de pelo menos um jogador antes de começar.",
	CodeActorNotOwner:               "Apenas o dono do jogo pode fazer isso.",
	CodeActorIsOwner:                "O dono do jogo não pode fazer isso.",
	CodeActorNotPlayer:              "Você não é um jogador neste jogo.",
	CodePlayerAlreadyJoined:         "Este jogador já entrou no jogo.",
	CodeAnswerAlreadyRecorded:       "Uma resposta para esta pergunta já foi registrada.",
	CodeQuestionNotInGame:           "Essa pergunta não pertence a este jogo.",
	CodeOptionNotInQuestion:         "Essa opção não pertence a esta pergunta.",
	CodeJoinGrantInvalid:            "O convite é inválido.",
	CodeJoinGrantExpired:            "O convite expirou.",
	CodeJoinGrantMismatch:           "O convite não corresponde{{if .Field}} ({{.Field}}){{end}}.",
	CodeNotFound:                    "Não encontrado.",
	CodeStorageUnavailable:          "O serviço está temporariamente indisponível. Tente novamente.",
}
