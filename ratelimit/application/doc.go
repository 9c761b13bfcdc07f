// Package application contém os casos de uso para o envio de documentos ao
// serviço de registro com limite de taxa.
//
// Ele depende apenas do pacote domain e não conhece net/http.
// Ex.: DocumentService.Create espera admissão no Gate e então chama o Transport
// exatamente uma vez.
package application
