package util

type Envelope map[string]any

func Error(message string) Envelope {
	return Envelope{"error": message}
}

func ErrorWithCode(code, message string) Envelope {
	return Envelope{"error": message, "code": code}
}

func Data(key string, value any) Envelope {
	return Envelope{key: value}
}

func Message(message string) Envelope {
	return Envelope{"message": message}
}
